package raw

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/cobslog/internal/core"
	"firestige.xyz/cobslog/internal/sink"
)

func TestSendWritesRecords(t *testing.T) {
	var out bytes.Buffer
	s := NewSink(&out)
	records := append([]byte{1, 2}, core.MissingSlot(2)...)

	require.NoError(t, s.Send(&sink.Report{Result: core.RunResult{Records: records, RecordSize: 2}}))
	require.NoError(t, s.Close())
	assert.Equal(t, []byte{1, 2, 0xFF, 0xFF}, out.Bytes())
	assert.Equal(t, Name, s.Name())
}
