// Package tgnotify adapts the notification port onto the Telegram Bot API.
// It owns the inline keyboard layout and the sos:* callback-data format that
// the inbound gateway parses; nothing outside this package builds or decodes
// callback data.
package tgnotify
