// Package tgtransport is the inbound Telegram gateway. It long-polls for
// updates, turns commands and sos:* button presses into engine calls, and
// maps engine errors onto the short user-facing replies the chat expects.
// Group-visible side effects of successful actions (acks, announcements,
// closure notices) are produced by the engine through the notification port,
// not here.
package tgtransport
