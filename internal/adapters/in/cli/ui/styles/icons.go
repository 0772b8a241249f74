package styles

// Status markers. Plain glyphs render on any terminal font.
const (
	IconSuccess = "✔"
	IconError   = "✘"
	IconWarning = "!"
	IconInfo    = "i"
	IconPending = "…"

	IconBullet = "▸"
	IconDot    = "●"
)
