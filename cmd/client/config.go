package main

import "time"

// Config defines the client-side environment variables.
// ACCESS_TOKEN and REFRESH_TOKEN log in with a pair issued elsewhere;
// without them the pair saved by a previous run is used.
type Config struct {
	ServerURL      string        `env:"CHAT_SERVER_URL,default=ws://localhost:3000/ws"`
	AccountURL     string        `env:"ACCOUNT_URL,required=true"`
	AccountTimeout time.Duration `env:"ACCOUNT_TIMEOUT,default=5s"`
	TokenDBPath    string        `env:"TOKEN_DB_PATH,default=.sendify"`
	AccessToken    string        `env:"ACCESS_TOKEN"`
	RefreshToken   string        `env:"REFRESH_TOKEN"`
	Room           string        `env:"CHAT_ROOM,default=general"`
	ChannelID      string        `env:"CHAT_CHANNEL_ID,required=true"`
	LogLevel       string        `env:"LOG_LEVEL,default=WARN"`
	Colours        bool          `env:"COLOURS,default=true"`
}
