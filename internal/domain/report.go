package domain

type Action string

const (
	ActionActive        Action = "Active"
	ActionNotActive     Action = "Not Active"
	ActionCategoryBlock Action = "Category Block"
	ActionCountryBlock  Action = "Country Block"
	ActionNone          Action = ""
)

type Mode int

const (
	ModeActiveOnly Mode = iota
	ModeFull
)

func (m Mode) String() string {
	if m == ModeFull {
		return "full"
	}
	return "active-only"
}

// UncategorisedLabel is reported when a category lookup succeeds with no data.
const UncategorisedLabel = "Uncategorised"

type Row struct {
	Indicator  Indicator
	Active     ThreatSummary
	History    *ThreatSummary // nil in active-only mode
	Categories []string       // nil when not looked up
	Action     Action
}

type InvalidLine struct {
	Number int
	Text   string
}

type Summary struct {
	Total       int
	Active      int
	WithHistory int
	Invalid     int
}

func (s Summary) NotActive() int { return s.Total - s.Active }

func (s Summary) NoInfo() int { return s.Total - s.WithHistory }
