package audit

import "fmt"

// Verdict is the CI gate outcome for a finished run. A failing verdict is
// a result, not an error; it surfaces as exit status 1, never as a panic.
type Verdict struct {
	Pass    bool
	Reasons []string
}

// Gate evaluates the summary against the configured failure thresholds.
// A nil threshold never trips. The high gate counts high-severity issues;
// the medium gate counts medium-severity issues only. A count equal to its
// threshold still passes; only exceeding it fails.
func Gate(s *Summary, failOnHigh, failOnMedium *int) Verdict {
	v := Verdict{Pass: true}

	if failOnHigh != nil {
		high := s.BySeverity[SeverityHigh]
		if high > *failOnHigh {
			v.Pass = false
			v.Reasons = append(v.Reasons,
				fmt.Sprintf("High severity issues (%d) exceed threshold (%d)", high, *failOnHigh))
		}
	}

	if failOnMedium != nil {
		medium := s.BySeverity[SeverityMedium]
		if medium > *failOnMedium {
			v.Pass = false
			v.Reasons = append(v.Reasons,
				fmt.Sprintf("Medium severity issues (%d) exceed threshold (%d)", medium, *failOnMedium))
		}
	}

	return v
}
