package store

// Auth persists the bearer token and user identity across restarts.
type Auth struct {
	kv *KV
}

func NewAuth(kv *KV) *Auth {
	return &Auth{kv: kv}
}

func (a *Auth) Token() string {
	token, _, _ := a.kv.Get(BucketAuth, "auth_token")
	return token
}

func (a *Auth) Username() string {
	name, _, _ := a.kv.Get(BucketAuth, "username")
	return name
}

func (a *Auth) SaveLogin(token, username, userID string) error {
	if err := a.kv.Put(BucketAuth, "auth_token", token); err != nil {
		return err
	}
	if err := a.kv.Put(BucketAuth, "username", username); err != nil {
		return err
	}
	return a.kv.Put(BucketAuth, "user_id", userID)
}

func (a *Auth) Clear() error {
	for _, key := range []string{"auth_token", "username", "user_id"} {
		if err := a.kv.Delete(BucketAuth, key); err != nil {
			return err
		}
	}
	return nil
}

// Settings persists user-changeable settings; currently only the
// backend base URL, which overrides the config file default when set.
type Settings struct {
	kv *KV
}

func NewSettings(kv *KV) *Settings {
	return &Settings{kv: kv}
}

func (s *Settings) BaseURL() string {
	url, _, _ := s.kv.Get(BucketSettings, "base_url")
	return url
}

func (s *Settings) SetBaseURL(url string) error {
	return s.kv.Put(BucketSettings, "base_url", url)
}
