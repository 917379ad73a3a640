package domain

// TokenPair is the client's credentials: a short-lived access token carrying
// an exp claim and a longer-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (t TokenPair) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// Profile is what the account service returns for a bearer token.
type Profile struct {
	ID        string
	Firstname string
	Lastname  string
}

// DisplayName is the name sent in the x-username handshake header.
func (p Profile) DisplayName() string {
	return p.Firstname + " " + p.Lastname
}
