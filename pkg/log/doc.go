/*
Package log provides structured logging for meshrelay using zerolog.

The package owns one global zerolog.Logger. Components derive child loggers
with WithComponent so every line carries its origin:

	logger := log.WithComponent("listener")
	logger.Info().Str("addr", addr).Msg("Listening for MeshCom packets")

# Sinks

	┌──────────────────── LOGGING SYSTEM ────────────────────┐
	│                                                         │
	│   log.Logger ──► MultiLevelWriter                       │
	│                    │                                    │
	│                    ├──► console   (level: console.level)│
	│                    │      ConsoleWriter or JSON         │
	│                    │                                    │
	│                    └──► file      (level: file.level)   │
	│                           lumberjack, JSON lines        │
	│                           size + periodic rotation      │
	│                                                         │
	└─────────────────────────────────────────────────────────┘

Each sink has its own minimum level. The zerolog global level is set to the
lower of the two so neither sink is starved.

# File Rotation

The file sink rotates when it reaches MaxSizeMB and, when RollingInterval is
"hour", "day" or "week", on a fixed period measured from startup. At most
MaxBackups rotated files are kept. Close stops the rotation goroutine and
closes the file; call it on shutdown.

# Levels

Configured level names are case-insensitive. "warning" and "critical" are
accepted so configuration files written for the original listener keep
working:

	level, err := log.ParseLevel("WARNING") // log.WarnLevel
*/
package log
