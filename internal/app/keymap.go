package app

// Key binding constants used in handleKey.
const (
	KeyQuit       = "q"
	KeyCtrlC      = "ctrl+c"
	KeyEnter      = "enter"
	KeyTab        = "tab"
	KeyUp         = "up"
	KeyDown       = "down"
	KeyJ          = "j"
	KeyK          = "k"
	KeySpace      = " "
	KeyCycleType  = "t"
	KeyOpenFile   = "f"
	KeyClearFile  = "x"
	KeyProcess    = "p"
	KeyCycleLang  = "l"
	KeyCycleAgent = "g"
	KeyTabSummary = "1"
	KeyTabTranscr = "2"
	KeyTabChat    = "3"
	KeyChat       = "i"
	KeyRefresh    = "r"
	KeyPassword   = "c"
	KeyLogout     = "L"
)
