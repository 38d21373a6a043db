package ai

import "testing"

func TestParseAction(t *testing.T) {
	cases := []struct {
		raw  string
		want Action
	}{
		{"answer", ActionAnswer},
		{" ANSWER ", ActionAnswer},
		{"clarify", ActionClarify},
		{"guide", ActionGuide},
		{"ask_again", ActionAskAgain},
		{"escalate", ActionAskAgain},
		{"", ActionAskAgain},
	}

	for _, tc := range cases {
		if got := ParseAction(tc.raw); got != tc.want {
			t.Fatalf("ParseAction(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestAskAgainDefault(t *testing.T) {
	reply := AskAgainDefault()
	if reply.Action != ActionAskAgain {
		t.Fatalf("unexpected action %q", reply.Action)
	}
	if reply.Reply != "" || reply.Answer != "" || reply.FollowUp != "" {
		t.Fatalf("the default must carry no text: %+v", reply)
	}
}
