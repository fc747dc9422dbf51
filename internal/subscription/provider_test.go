package subscription

import "testing"

func TestHealthScoreNoHistoryFavorsLowerPriority(t *testing.T) {
	p1 := Provider{Name: "a", Priority: 1}
	p2 := Provider{Name: "b", Priority: 4}
	if p1.HealthScore(0, 0) <= p2.HealthScore(0, 0) {
		t.Errorf("expected lower-priority-number provider to score higher with no history")
	}
}

func TestHealthScoreRewardsSuccessRate(t *testing.T) {
	p := Provider{Name: "a", Priority: 1, RateLimit: 1000}
	good := p.HealthScore(90, 10)
	bad := p.HealthScore(10, 90)
	if good <= bad {
		t.Errorf("expected a 90%% success rate to outscore a 10%% success rate, got good=%.2f bad=%.2f", good, bad)
	}
}

func TestHealthScoreBounded(t *testing.T) {
	p := Provider{Name: "a", Priority: 1, RateLimit: 5000}
	score := p.HealthScore(1000, 0)
	if score < 0 || score > 100 {
		t.Errorf("expected score in [0,100], got %.2f", score)
	}
}
