package domain

import "time"

// Stats summarizes how well signal onsets anticipate reference recessions.
type Stats struct {
	SignalStarts    []time.Time // onsets of the thresholded signal, ASC
	RecessionStarts []time.Time // closed recession starts used for matching, ASC

	// Accuracy is the rounded percentage of onsets matched by a recession
	// start. Nil when there are no onsets.
	Accuracy *int

	// RecessionLeadTime is the rounded mean signed day offset to the nearest
	// recession start. Onsets without a match count as 0 days. Nil when there
	// are no onsets.
	RecessionLeadTime *int

	// CommitteeLeadTime is the rounded mean of positive day offsets to the
	// nearest committee announcement. Nil when no onset leads one.
	CommitteeLeadTime *int

	UnmatchedOnsets int  // onsets with no recession start inside the window
	NoCrossings     bool // the signal never crossed the threshold

	Warnings []string
}
