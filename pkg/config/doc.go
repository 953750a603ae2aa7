/*
Package config loads and validates the meshrelay configuration.

The file format follows the extension: YAML (.yaml, .yml), JSON with
comments (.json, .jsonc) or TOML (.toml). File values are decoded over
Default(), so a file only needs the keys it changes. Built-in templates the
file does not override are kept.

A missing file is created with the defaults. The bot credentials and the
console log level can be overridden from the environment:

	TELEGRAM_BOT_TOKEN
	TELEGRAM_CHAT_ID
	MESHRELAY_LOG_LEVEL

Non-fatal findings such as unknown rule keys are collected in
Config.Warnings so they can be logged after logging is initialized.
*/
package config
