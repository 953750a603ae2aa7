// Package telegram delivers rendered notifications through the Telegram Bot
// API using github.com/go-telegram/bot. Delivery is best effort: one
// sendMessage call per notification with a bounded timeout and no retry.
package telegram
