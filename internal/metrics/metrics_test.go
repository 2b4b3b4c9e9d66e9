package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"manifestproxyd/internal/models"
)

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeOK, OutcomeOf(nil))
	assert.Equal(t, OutcomeInvalidArgument, OutcomeOf(fmt.Errorf("%w: token", models.ErrInvalidArgument)))
	assert.Equal(t, OutcomeUpstreamError, OutcomeOf(fmt.Errorf("%w: dial", models.ErrUpstreamFetch)))
	assert.Equal(t, OutcomeTransformError, OutcomeOf(fmt.Errorf("%w: timeout", models.ErrTransform)))
	assert.Equal(t, OutcomeTransformError, OutcomeOf(errors.New("unexpected")))
}

func TestRecordManifestRequest(t *testing.T) {
	before := testutil.ToFloat64(manifestRequests.WithLabelValues(OutcomeOK, string(models.KindHLS)))
	RecordManifestRequest(OutcomeOK, models.KindHLS, 15*time.Millisecond)
	after := testutil.ToFloat64(manifestRequests.WithLabelValues(OutcomeOK, string(models.KindHLS)))
	assert.Equal(t, before+1, after)

	beforeUnknown := testutil.ToFloat64(manifestRequests.WithLabelValues(OutcomeInvalidArgument, string(models.KindUnknown)))
	RecordManifestRequest(OutcomeInvalidArgument, "", time.Millisecond)
	assert.Equal(t, beforeUnknown+1, testutil.ToFloat64(manifestRequests.WithLabelValues(OutcomeInvalidArgument, string(models.KindUnknown))))
}

func TestRecordRewrite(t *testing.T) {
	tokenized := testutil.ToFloat64(urlsTokenized)
	resolved := testutil.ToFloat64(fragmentsResolved)

	RecordRewrite(3, 2, 1024)

	assert.Equal(t, tokenized+3, testutil.ToFloat64(urlsTokenized))
	assert.Equal(t, resolved+2, testutil.ToFloat64(fragmentsResolved))
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.CollectAndCount(httpRequestDuration)
	RecordHTTPRequest("GET", fmt.Sprintf("/test/%d", time.Now().UnixNano()), 200, 512, 5*time.Millisecond)
	assert.Equal(t, before+1, testutil.CollectAndCount(httpRequestDuration))
}

func TestTrackInFlight(t *testing.T) {
	base := testutil.ToFloat64(httpRequestsInFlight)
	done := TrackInFlight()
	assert.Equal(t, base+1, testutil.ToFloat64(httpRequestsInFlight))
	done()
	assert.Equal(t, base, testutil.ToFloat64(httpRequestsInFlight))
}
