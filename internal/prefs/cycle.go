package prefs

// Next returns the following type filter in cycle order.
func (f TypeFilter) Next() TypeFilter {
	switch f {
	case TypeAll:
		return TypeBug
	case TypeBug:
		return TypeFeature
	default:
		return TypeAll
	}
}

// Next returns the following ticket filter in cycle order.
func (f TicketFilter) Next() TicketFilter {
	switch f {
	case TicketAll:
		return TicketHas
	case TicketHas:
		return TicketNo
	default:
		return TicketAll
	}
}

// Next returns the following severity filter in cycle order.
func (f SeverityFilter) Next() SeverityFilter {
	switch f {
	case SeverityAll:
		return SeverityHigh
	case SeverityHigh:
		return SeverityLow
	default:
		return SeverityAll
	}
}
