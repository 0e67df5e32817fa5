package polling

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuakim/valuefinder/internal/config"
	"github.com/joshuakim/valuefinder/internal/metrics"
	"github.com/joshuakim/valuefinder/internal/service"
	"github.com/joshuakim/valuefinder/internal/store"
	"github.com/joshuakim/valuefinder/internal/teams"
)

const predictionsHTML = `<table>
<tr id="row_2025_03_JAX_HOU">
  <td><font>9/21</font></td>
  <td><font>1:00</font></td>
  <td><input name="2025_03_JAX_HOU" market="26"/></td>
</tr>
</table>`

const bettingHTML = `<table>
<tr>
  <td><div class="best-odds__game-info"><span>Jaguars</span><span>Texans</span></div></td>
  <td><div class="best-odds__odds-container">
    <div class="css-rppihz"><span class="css-1jlt5rt">-3.5</span></div>
    <div class="css-rppihz"><span class="css-1jlt5rt">+3.5</span></div>
  </div></td>
</tr>
</table>`

// brokenPipeline points at sources that do not exist yet; restore writes them
func brokenPipeline(t *testing.T) (*service.Pipeline, func()) {
	t.Helper()
	dir := t.TempDir()
	predPath := filepath.Join(dir, "predictions.html")
	betPath := filepath.Join(dir, "betting.html")

	cfg := config.Default()
	cfg.Inputs.Predictions = predPath
	cfg.Inputs.Betting = betPath
	cfg.Output.Path = filepath.Join(dir, "out.csv")

	p := service.New(cfg, teams.Default(), store.New(), nil, metrics.New(), nil)
	restore := func() {
		require.NoError(t, os.WriteFile(predPath, []byte(predictionsHTML), 0o644))
		require.NoError(t, os.WriteFile(betPath, []byte(bettingHTML), 0o644))
	}
	return p, restore
}

func testService(p *service.Pipeline) *Service {
	return New(Config{
		Interval:             time.Minute,
		MaxRetries:           2,
		RetryBaseDelay:       time.Millisecond,
		MaxConsecutiveErrors: 2,
		RecoveryInterval:     time.Hour,
	}, p, metrics.New())
}

func TestPollRetriesThenFails(t *testing.T) {
	p, _ := brokenPipeline(t)
	s := testService(p)

	s.poll(context.Background())
	assert.Equal(t, 1, s.consecutiveErrors)
	assert.False(t, s.recoveryMode)
}

func TestPollEntersAndLeavesRecoveryMode(t *testing.T) {
	p, restore := brokenPipeline(t)
	s := testService(p)
	ctx := context.Background()

	// Two exhausted polls hit MaxConsecutiveErrors
	s.poll(ctx)
	s.poll(ctx)
	assert.Equal(t, 2, s.consecutiveErrors)
	assert.True(t, s.recoveryMode)

	// Once the sources come back, one success clears recovery mode
	restore()
	s.poll(ctx)
	assert.Equal(t, 0, s.consecutiveErrors)
	assert.False(t, s.recoveryMode)
	assert.Equal(t, 1, p.Store().Len())
}

func TestPollRecoversWithinRetries(t *testing.T) {
	p, restore := brokenPipeline(t)
	s := testService(p)

	restore()
	s.poll(context.Background())
	assert.Equal(t, 0, s.consecutiveErrors)
	assert.Equal(t, 1, p.Store().Len())
}

func TestPollStopsOnCancelledContext(t *testing.T) {
	p, _ := brokenPipeline(t)
	s := New(Config{
		Interval:             time.Minute,
		MaxRetries:           3,
		RetryBaseDelay:       time.Hour,
		MaxConsecutiveErrors: 2,
		RecoveryInterval:     time.Hour,
	}, p, metrics.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// First attempt fails, the backoff wait sees the dead context and
	// returns without counting the poll as exhausted
	done := make(chan struct{})
	go func() {
		s.poll(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poll did not return after context cancellation")
	}
	assert.Equal(t, 0, s.consecutiveErrors)
}
