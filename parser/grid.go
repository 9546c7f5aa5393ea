package parser

// EventKind classifies a grid row.
type EventKind int

const (
	EventSectionHeader EventKind = iota + 1
	EventProductHeader
	EventDataRow
)

// Event is one meaningful row of a sheet.
type Event struct {
	Kind  EventKind
	Row   int // 0-based row index in the sheet
	Cells []string
}

// Rules decide what each row is. Rows rejected by Keep produce no event.
type Rules struct {
	Keep      func(row []string) bool
	IsSection func(row []string) bool
	IsProduct func(row []string) bool
}

// Tokenize walks rows top to bottom and emits one event per kept row.
func Tokenize(rows [][]string, rules Rules) []Event {
	var events []Event
	for i, row := range rows {
		if rules.Keep != nil && !rules.Keep(row) {
			continue
		}
		kind := EventDataRow
		switch {
		case rules.IsSection != nil && rules.IsSection(row):
			kind = EventSectionHeader
		case rules.IsProduct != nil && rules.IsProduct(row):
			kind = EventProductHeader
		}
		events = append(events, Event{Kind: kind, Row: i, Cells: row})
	}
	return events
}

// ProductBlock is a product header followed by its data rows.
type ProductBlock struct {
	Product string
	Rows    []Event
}

// Section is the run of events between one section header and the next.
type Section struct {
	Index  int // 0-based order of the header in the sheet
	Header Event
	Blocks []ProductBlock
}

// SplitSections groups events into sections and product blocks. Events
// before the first section header are dropped, as are data rows that come
// before the first product header of their section.
func SplitSections(events []Event) []Section {
	var sections []Section
	for _, ev := range events {
		switch ev.Kind {
		case EventSectionHeader:
			sections = append(sections, Section{Index: len(sections), Header: ev})
		case EventProductHeader:
			if len(sections) == 0 {
				continue
			}
			s := &sections[len(sections)-1]
			s.Blocks = append(s.Blocks, ProductBlock{Product: rowCell(ev.Cells, 0)})
		case EventDataRow:
			if len(sections) == 0 {
				continue
			}
			s := &sections[len(sections)-1]
			if len(s.Blocks) == 0 {
				continue
			}
			b := &s.Blocks[len(s.Blocks)-1]
			b.Rows = append(b.Rows, ev)
		}
	}
	return sections
}
