package endian

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWireIsLittleEndian(t *testing.T) {
	require.Equal(t, binary.LittleEndian, Wire())
	require.Equal(t, uint32(0x04030201), Wire().Uint32([]byte{0x01, 0x02, 0x03, 0x04}))
}

func TestAppendRoundTrip(t *testing.T) {
	engine := Wire()

	buf := engine.AppendUint16(nil, 0x8abc)
	buf = engine.AppendUint32(buf, 0x10203040)
	buf = engine.AppendUint64(buf, 0x0807060504030201)
	require.Len(t, buf, 14)

	require.Equal(t, uint16(0x8abc), engine.Uint16(buf[0:2]))
	require.Equal(t, uint32(0x10203040), engine.Uint32(buf[2:6]))
	require.Equal(t, uint64(0x0807060504030201), engine.Uint64(buf[6:14]))
	require.Equal(t, []byte{0xbc, 0x8a}, buf[0:2])
}
