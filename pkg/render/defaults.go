package render

// DefaultTemplates returns the built-in MarkdownV2 templates
func DefaultTemplates() map[string]string {
	return map[string]string{
		DefaultTemplate: "📡 *New message*\n" +
			"*Type:* `{type}`\n" +
			"*From:* `{src}`\n" +
			"*To:* `{dst}`\n" +
			"*ID:* `{msg_id}`\n" +
			"*Raw:* `{_raw_json_short}`",
		"msg": "📡 *New message*\n" +
			"*Type:* `msg`\n" +
			"*From:* `{src}`\n" +
			"*To:* `{dst}`\n" +
			"*ID:* `{msg_id}`\n" +
			"*Message:*\n```\n{msg}\n```",
		"pos": "📡 *Position*\n" +
			"*From:* `{src}`\n" +
			"*Position:* `{lat}, {long}`\n" +
			"*Altitude:* `{_alt_m}m`\n" +
			"[📍 Show on map]({_map_link})",
	}
}
