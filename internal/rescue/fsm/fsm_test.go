package fsm

import "testing"

func TestCanTransition(t *testing.T) {
	if !CanTransition(StatusPending, StatusAccepted) {
		t.Fatal("expected pending -> accepted to be allowed")
	}
	if !CanTransition(StatusPending, StatusRejected) {
		t.Fatal("expected pending -> rejected to be allowed")
	}
	if !CanTransition(StatusPending, StatusCancelled) {
		t.Fatal("expected pending -> cancelled to be allowed")
	}
	if !CanTransition(StatusAccepted, StatusOnTheWay) {
		t.Fatal("expected accepted -> on_the_way to be allowed")
	}
	if !CanTransition(StatusOnTheWay, StatusInProgress) {
		t.Fatal("expected on_the_way -> in_progress to be allowed")
	}
	if !CanTransition(StatusOnTheWay, StatusDelivered) {
		t.Fatal("expected on_the_way -> delivered to be allowed")
	}
	if !CanTransition(StatusInProgress, StatusCompleted) {
		t.Fatal("expected in_progress -> completed to be allowed")
	}
	if CanTransition(StatusPending, StatusCompleted) {
		t.Fatal("unexpected transition allowed: pending -> completed skips states")
	}
	if CanTransition(StatusAccepted, StatusInProgress) {
		t.Fatal("unexpected transition allowed: accepted -> in_progress skips on_the_way")
	}
}

func TestSelfTransitionRejected(t *testing.T) {
	for _, status := range []string{StatusPending, StatusAccepted, StatusOnTheWay, StatusInProgress, StatusCompleted, StatusCancelled, StatusRejected, StatusDelivered} {
		if CanTransition(status, status) {
			t.Fatalf("self transition allowed for %s", status)
		}
	}
}

func TestTerminalStatesHaveNoEdges(t *testing.T) {
	terminals := []string{StatusRejected, StatusCancelled, StatusCompleted, StatusDelivered}
	for _, status := range terminals {
		if !IsTerminal(status) {
			t.Fatalf("expected %s to be terminal", status)
		}
		for _, target := range []string{StatusPending, StatusAccepted, StatusOnTheWay, StatusInProgress, StatusCompleted, StatusDelivered, StatusCancelled} {
			if CanTransition(status, target) {
				t.Fatalf("terminal %s allows transition to %s", status, target)
			}
		}
	}
	if IsTerminal(StatusPending) || IsTerminal(StatusOnTheWay) {
		t.Fatal("non-terminal status reported terminal")
	}
}

func TestAllowedTargetPerType(t *testing.T) {
	if AllowedTarget(TypeFuel, StatusInProgress) {
		t.Fatal("fuel requests must not enter in_progress")
	}
	if !AllowedTarget(TypeFuel, StatusDelivered) {
		t.Fatal("fuel requests must be deliverable")
	}
	for _, typ := range []string{TypeMechanic, TypeMedical, TypeTowing} {
		if !AllowedTarget(typ, StatusInProgress) {
			t.Fatalf("%s requests must enter in_progress", typ)
		}
		if AllowedTarget(typ, StatusDelivered) {
			t.Fatalf("%s requests must not be deliverable", typ)
		}
	}
}
