package codec

// Evt2Type is the 4-bit type tag of an EVT2 record (bits 28-31).
type Evt2Type uint8

const (
	Evt2CDOff      Evt2Type = 0x0
	Evt2CDOn       Evt2Type = 0x1
	Evt2TimeHigh   Evt2Type = 0x8
	Evt2ExtTrigger Evt2Type = 0xA
	Evt2Others     Evt2Type = 0xE
	Evt2Continued  Evt2Type = 0xF
)

func (t Evt2Type) String() string {
	switch t {
	case Evt2CDOff:
		return "CD_OFF"
	case Evt2CDOn:
		return "CD_ON"
	case Evt2TimeHigh:
		return "TIME_HIGH"
	case Evt2ExtTrigger:
		return "EXT_TRIGGER"
	case Evt2Others:
		return "OTHERS"
	case Evt2Continued:
		return "CONTINUED"
	default:
		return "UNKNOWN"
	}
}

// Evt3Type is the 4-bit type tag of an EVT3 record (bits 12-15).
type Evt3Type uint8

const (
	Evt3AddrY       Evt3Type = 0x0
	Evt3AddrX       Evt3Type = 0x2
	Evt3VectBaseX   Evt3Type = 0x3
	Evt3Vect12      Evt3Type = 0x4
	Evt3Vect8       Evt3Type = 0x5
	Evt3TimeLow     Evt3Type = 0x6
	Evt3Continued4  Evt3Type = 0x7
	Evt3TimeHigh    Evt3Type = 0x8
	Evt3ExtTrigger  Evt3Type = 0xC
	Evt3Others      Evt3Type = 0xE
	Evt3Continued12 Evt3Type = 0xF
)

func (t Evt3Type) String() string {
	switch t {
	case Evt3AddrY:
		return "EVT_ADDR_Y"
	case Evt3AddrX:
		return "EVT_ADDR_X"
	case Evt3VectBaseX:
		return "VECT_BASE_X"
	case Evt3Vect12:
		return "VECT_12"
	case Evt3Vect8:
		return "VECT_8"
	case Evt3TimeLow:
		return "EVT_TIME_LOW"
	case Evt3Continued4:
		return "CONTINUED_4"
	case Evt3TimeHigh:
		return "EVT_TIME_HIGH"
	case Evt3ExtTrigger:
		return "EXT_TRIGGER"
	case Evt3Others:
		return "OTHERS"
	case Evt3Continued12:
		return "CONTINUED_12"
	default:
		return "UNKNOWN"
	}
}

// Bit masks and positions shared by decoders and encoders.
const (
	mask4b  = 0xF
	mask6b  = 0x3F
	mask8b  = 0xFF
	mask11b = 0x7FF
	mask12b = 0xFFF
	mask14b = 0x3FFF
	mask28b = 0xFFFFFFF

	datYShift = 14
	datPShift = 28

	evt2TypeShift = 28
	evt2LowShift  = 22
	evt2XShift    = 11
	evt2LowBits   = 6

	evt3TypeShift     = 12
	evt3PolarityShift = 11
	evt3FieldBits     = 12
	evt3HighOvfShift  = 24
)

// Evt2Tag extracts the type tag of an EVT2 word.
func Evt2Tag(word uint32) Evt2Type {
	return Evt2Type(word >> evt2TypeShift)
}

// Evt3Tag extracts the type tag of an EVT3 word.
func Evt3Tag(word uint16) Evt3Type {
	return Evt3Type(word >> evt3TypeShift)
}
