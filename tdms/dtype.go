package tdms

import "fmt"

// DataType identifies the on-disk type of a TDMS value, as written in
// raw data indexes and property headers.
type DataType uint32

// TDMS data type codes.
const (
	TypeVoid                  DataType = 0x00
	TypeInt8                  DataType = 0x01
	TypeInt16                 DataType = 0x02
	TypeInt32                 DataType = 0x03
	TypeInt64                 DataType = 0x04
	TypeUint8                 DataType = 0x05
	TypeUint16                DataType = 0x06
	TypeUint32                DataType = 0x07
	TypeUint64                DataType = 0x08
	TypeSingleFloat           DataType = 0x09
	TypeDoubleFloat           DataType = 0x0A
	TypeExtendedFloat         DataType = 0x0B
	TypeSingleFloatWithUnit   DataType = 0x19
	TypeDoubleFloatWithUnit   DataType = 0x1A
	TypeExtendedFloatWithUnit DataType = 0x1B
	TypeString                DataType = 0x20
	TypeBoolean               DataType = 0x21
	TypeTimeStamp             DataType = 0x44
	TypeFixedPoint            DataType = 0x4F
	TypeComplexSingleFloat    DataType = 0x08000C
	TypeComplexDoubleFloat    DataType = 0x10000D
	TypeDAQmxRawData          DataType = 0xFFFFFFFF
)

var typeNames = map[DataType]string{
	TypeVoid:                  "Void",
	TypeInt8:                  "Int8",
	TypeInt16:                 "Int16",
	TypeInt32:                 "Int32",
	TypeInt64:                 "Int64",
	TypeUint8:                 "Uint8",
	TypeUint16:                "Uint16",
	TypeUint32:                "Uint32",
	TypeUint64:                "Uint64",
	TypeSingleFloat:           "SingleFloat",
	TypeDoubleFloat:           "DoubleFloat",
	TypeExtendedFloat:         "ExtendedFloat",
	TypeSingleFloatWithUnit:   "SingleFloatWithUnit",
	TypeDoubleFloatWithUnit:   "DoubleFloatWithUnit",
	TypeExtendedFloatWithUnit: "ExtendedFloatWithUnit",
	TypeString:                "String",
	TypeBoolean:               "Boolean",
	TypeTimeStamp:             "TimeStamp",
	TypeFixedPoint:            "FixedPoint",
	TypeComplexSingleFloat:    "ComplexSingleFloat",
	TypeComplexDoubleFloat:    "ComplexDoubleFloat",
	TypeDAQmxRawData:          "DAQmxRawData",
}

func (t DataType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(0x%X)", uint32(t))
}

// size returns the fixed on-disk size of one value in bytes, or 0 for
// variable-size and unsupported types.
func (t DataType) size() int {
	switch t {
	case TypeInt8, TypeUint8, TypeBoolean:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeSingleFloat, TypeSingleFloatWithUnit:
		return 4
	case TypeInt64, TypeUint64, TypeDoubleFloat, TypeDoubleFloatWithUnit:
		return 8
	case TypeTimeStamp:
		return 16
	default:
		return 0
	}
}

// readValue decodes one scalar of type t, as found in property tables.
func readValue(r *reader, t DataType) (interface{}, error) {
	switch t {
	case TypeVoid:
		return nil, nil
	case TypeInt8:
		v, err := r.uint8()
		return int8(v), err
	case TypeInt16:
		v, err := r.uint16()
		return int16(v), err
	case TypeInt32:
		v, err := r.uint32()
		return int32(v), err
	case TypeInt64:
		v, err := r.uint64()
		return int64(v), err
	case TypeUint8:
		return r.uint8()
	case TypeUint16:
		return r.uint16()
	case TypeUint32:
		return r.uint32()
	case TypeUint64:
		return r.uint64()
	case TypeSingleFloat, TypeSingleFloatWithUnit:
		return r.float32()
	case TypeDoubleFloat, TypeDoubleFloatWithUnit:
		return r.float64()
	case TypeString:
		return r.lengthString()
	case TypeBoolean:
		v, err := r.uint8()
		return v != 0, err
	case TypeTimeStamp:
		return readTimestamp(r)
	default:
		return nil, fmt.Errorf("%w: property value of type %s", ErrUnsupported, t)
	}
}
