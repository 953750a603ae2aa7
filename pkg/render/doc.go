/*
Package render builds Telegram notification text from mesh messages.

Templates are plain strings with {name} placeholders, selected by the
message type tag with "default" as the fallback. Each template is compiled
once when the TemplateSet is created.

# Render Context

Placeholder values are classified when the context is built, because
MarkdownV2 needs escaping in normal text but not inside code spans or link
targets:

	escaped   type, src, dst, msg, msg_id, ack_id and any other scalar member
	raw       lat, long, alt
	computed  _alt_m           altitude in meters, one decimal, "N/A" or "invalid"
	          _map_link        OpenStreetMap link, "N/A" without coordinates
	          _raw_json_short  compact JSON dump, 200 characters max

A placeholder with no value renders as "???".

# Fallback

A template that cannot be rendered (for example an unbalanced brace) is
replaced by a fixed error text holding the escaped type tag and an indented
JSON dump of the message. Render never fails:

	set, err := render.NewTemplateSet(render.DefaultTemplates())
	if err != nil {
		return err
	}
	text := render.NewRenderer(set).Render(msg)
*/
package render
