package events

// Notice is a short user-visible message describing an outcome.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Destructive bool   `json:"destructive,omitempty"`
}

// ErrorNotice wraps a failed operation.
func ErrorNotice(err error) Notice {
	return Notice{Title: "Error", Description: err.Error(), Destructive: true}
}

// NoticeFor describes ev for participants. Unknown events produce an empty notice.
func NoticeFor(ev Event) Notice {
	payload, err := ParsePayload(ev)
	if err != nil {
		return Notice{}
	}

	switch p := payload.(type) {
	case *DraftStartedPayload:
		return Notice{Title: "Draft Started", Description: "First turn: " + p.TeamName}
	case *DraftPausedPayload:
		return Notice{Title: "Draft Paused"}
	case *DraftResumedPayload:
		return Notice{Title: "Draft Resumed"}
	case *TurnAdvancedPayload:
		return Notice{Title: "Next Team's Turn", Description: "Current turn: " + p.TeamName}
	case *DraftCompletedPayload:
		return Notice{Title: "Draft Completed", Description: "All team rosters have been finalized"}
	case *PlayerClaimedPayload:
		return Notice{Title: "Player Selected", Description: "Selection is pending confirmation"}
	case *TurnPassedPayload:
		return Notice{Title: "Turn Passed"}
	default:
		return Notice{}
	}
}
