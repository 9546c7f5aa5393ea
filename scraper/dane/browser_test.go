package dane

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebmatecho/sipsa-tracker/utils"
)

func TestBrowserSourceStartFailureIsSticky(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-chrome")
	b := NewBrowserSource(missing, "sipsa-test", 5*time.Second, nil, utils.NewLoggerTo(io.Discard))
	defer b.Close()

	_, err := b.Fetch(t.Context(), "https://www.dane.gov.co")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser: start")

	// The browser is launched once; later fetches report the same failure.
	_, again := b.Fetch(t.Context(), "https://www.dane.gov.co")
	assert.Same(t, err, again)
}
