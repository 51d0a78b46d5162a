package events_test

import (
	"testing"

	"github.com/HamaKinger/blockchain/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Events(t *testing.T) {
	t.Log("Given the need to fan out node events.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen subscribers filter by source.", testID)
		{
			evts := events.New()
			defer evts.Shutdown()

			all := evts.Acquire("all")
			state := evts.Acquire("state", "state")

			evts.Send("state: MineNewBlock: started")
			evts.Send("worker: miningOperations: G started")

			if got := len(all.C); got != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould deliver both messages to the unfiltered subscriber, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould deliver both messages to the unfiltered subscriber.", success, testID)

			if got := len(state.C); got != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould deliver one message to the filtered subscriber, got %d.", failed, testID, got)
			}
			if msg := <-state.C; msg != "state: MineNewBlock: started" {
				t.Fatalf("\t%s\tTest %d:\tShould deliver the state message, got %q.", failed, testID, msg)
			}
			t.Logf("\t%s\tTest %d:\tShould deliver only the state message to the filtered subscriber.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a subscriber falls behind.", testID)
		{
			evts := events.New()

			sub := evts.Acquire("slow")
			for i := 0; i < 105; i++ {
				evts.Send("state: tick")
			}

			dropped, err := evts.Release("slow")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould release the subscription: %v", failed, testID, err)
			}
			if dropped != 5 {
				t.Fatalf("\t%s\tTest %d:\tShould count 5 dropped messages, got %d.", failed, testID, dropped)
			}
			t.Logf("\t%s\tTest %d:\tShould count 5 dropped messages.", success, testID)

			var n int
			for range sub.C {
				n++
			}
			if n != 100 {
				t.Fatalf("\t%s\tTest %d:\tShould drain 100 buffered messages, got %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould drain 100 buffered messages and see the channel closed.", success, testID)

			if _, err := evts.Release("slow"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould fail to release twice.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fail to release twice.", success, testID)

			if evts.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould hold no subscriptions.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould hold no subscriptions.", success, testID)
		}
	}
}
