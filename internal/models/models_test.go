package models

import "testing"

func TestTrackRefPrimaryArtist(t *testing.T) {
	t.Run("first credited artist", func(t *testing.T) {
		track := TrackRef{Artists: []string{"Artist X", "Artist Y"}}
		if got := track.PrimaryArtist(); got != "Artist X" {
			t.Errorf("PrimaryArtist() = %q, want %q", got, "Artist X")
		}
	})

	t.Run("empty artist list", func(t *testing.T) {
		track := TrackRef{}
		if got := track.PrimaryArtist(); got != "" {
			t.Errorf("PrimaryArtist() = %q, want empty", got)
		}
	})
}

func TestPlaylistRefIsLiked(t *testing.T) {
	if !(PlaylistRef{ID: LikedSongsID}).IsLiked() {
		t.Error("expected liked playlist ref")
	}
	if (PlaylistRef{ID: "37i9dQZF1DX"}).IsLiked() {
		t.Error("regular playlist reported as liked")
	}
}

func TestJobStatusTerminal(t *testing.T) {
	terminal := []JobStatus{StatusCompleted, StatusCompletedWithErrors, StatusFailed}
	for _, status := range terminal {
		if !status.Terminal() {
			t.Errorf("%s should be terminal", status)
		}
	}

	active := []JobStatus{StatusCreated, StatusFetchingSource, StatusResolving, StatusWriting}
	for _, status := range active {
		if status.Terminal() {
			t.Errorf("%s should not be terminal", status)
		}
	}
}

func TestJobReportTally(t *testing.T) {
	report := JobReport{
		Items: []TransferItemResult{
			{Outcome: OutcomeMatched},
			{Outcome: OutcomeMatched},
			{Outcome: OutcomeAmbiguous},
			{Outcome: OutcomeNoMatch},
			{Outcome: OutcomeProviderError},
		},
	}

	report.Tally()

	want := OutcomeCounts{Matched: 2, NoMatch: 1, Ambiguous: 1, Errors: 1}
	if report.Counts != want {
		t.Errorf("Counts = %+v, want %+v", report.Counts, want)
	}

	t.Run("recompute after mutation", func(t *testing.T) {
		report.Items = report.Items[:2]
		report.Tally()
		if report.Counts != (OutcomeCounts{Matched: 2}) {
			t.Errorf("Counts = %+v after shrink", report.Counts)
		}
	})
}
