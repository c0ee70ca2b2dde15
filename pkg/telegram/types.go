package telegram

import "time"

// Channel identifies one broadcast channel visible in the account's dialogs.
type Channel struct {
	ID         int64  `json:"id"`
	AccessHash int64  `json:"access_hash"`
	Title      string `json:"title"`
}

// Message is one scraped channel post as a flat row record.
type Message struct {
	Channel string    `json:"channel"`
	Date    time.Time `json:"date"`
	Text    string    `json:"text"`
	Views   int       `json:"views"`
}
