package tui

// Color constants for the kiosk theme
const (
	// Base Colors
	ColorBorder = "#3A3F55" // Grey-blue

	// Text Colors
	ColorPrimaryText   = "#E6EAF2" // Primary text (card input, names)
	ColorSecondaryText = "#B1B8C7" // Secondary text - subtle purple-tinted grey
	ColorPlaceholder   = "#B1B8C7" // Same as secondary
	ColorHelpText      = "240"     // Dark grey for help text

	// Accent Colors
	ColorAccentMain   = "#7C3AED" // Title, active borders
	ColorAccentBright = "#A78BFA" // Cursor, highlights

	// State Colors
	ColorError   = "#EF4444" // Rejected taps
	ColorSuccess = "#22C55E" // Check-in / check-out confirmations
	ColorWarning = "#F59E0B" // Warnings
)
