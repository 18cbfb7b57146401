package models

// Profile is one entry of the discover feed
type Profile struct {
	UserID    string   `json:"userId"`
	Name      string   `json:"name"`
	Age       int      `json:"age"`
	Location  string   `json:"location"`
	Bio       string   `json:"bio"`
	Photos    []string `json:"photos"`
	Interests []string `json:"interests"`
	Verified  bool     `json:"verified"`
}
