package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NilRegistryDisablesMetrics(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	// Every recorder is safe on a nil receiver.
	m.RecordCommit(StatusCommitted, time.Millisecond)
	m.RecordChanges("Person", 2)
	m.RecordValidationFailure("Person")
	m.RecordLoad("Person")
	m.RecordUnpersisted(1)
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordCommit(StatusCommitted, 2*time.Millisecond)
	m.RecordCommit(StatusCommitted, time.Millisecond)
	m.RecordCommit(StatusInvalid, time.Millisecond)
	m.RecordChanges("Person", 3)
	m.RecordChanges("Person", 0)
	m.RecordValidationFailure("Person")
	m.RecordLoad("Pet")
	m.RecordLoad("Pet")
	m.RecordUnpersisted(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commits.WithLabelValues(StatusCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues(StatusInvalid)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.changeRecords.WithLabelValues("Person")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationFailures.WithLabelValues("Person")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.entitiesLoaded.WithLabelValues("Pet")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.unpersistedReference))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}
