/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	registry.go: static (class, id) -> payload layout registry.

	Adding support for a new message is a data addition here, not new
	decoding code. Field names and scale factors follow the u-blox M8
	Receiver Description.
*/
package ubx

// msgKey packs class and id the way receiver raw decoders usually do,
// class in the high byte.
func msgKey(class, id byte) uint16 {
	return uint16(class)<<8 | uint16(id)
}

var registry = map[uint16]Layout{
	msgKey(ClassACK, IDAckAck): {
		Name: "ACK-ACK",
		Fields: []Field{
			{Name: "clsID", Type: U1},
			{Name: "msgID", Type: U1},
		},
	},
	msgKey(ClassACK, IDAckNak): {
		Name: "ACK-NAK",
		Fields: []Field{
			{Name: "clsID", Type: U1},
			{Name: "msgID", Type: U1},
		},
	},
	msgKey(ClassNAV, 0x02): {
		Name: "NAV-POSLLH",
		Fields: []Field{
			{Name: "iTOW", Type: U4},
			{Name: "lon", Type: I4, Scale: 1e-7},
			{Name: "lat", Type: I4, Scale: 1e-7},
			{Name: "height", Type: I4},
			{Name: "hMSL", Type: I4},
			{Name: "hAcc", Type: U4},
			{Name: "vAcc", Type: U4},
		},
	},
	msgKey(ClassNAV, 0x03): {
		Name: "NAV-STATUS",
		Fields: []Field{
			{Name: "iTOW", Type: U4},
			{Name: "gpsFix", Type: U1},
			{Name: "flags", Type: X1},
			{Name: "fixStat", Type: X1},
			{Name: "flags2", Type: X1},
			{Name: "ttff", Type: U4},
			{Name: "msss", Type: U4},
		},
	},
	msgKey(ClassNAV, 0x04): {
		Name: "NAV-DOP",
		Fields: []Field{
			{Name: "iTOW", Type: U4},
			{Name: "gDOP", Type: U2, Scale: 0.01},
			{Name: "pDOP", Type: U2, Scale: 0.01},
			{Name: "tDOP", Type: U2, Scale: 0.01},
			{Name: "vDOP", Type: U2, Scale: 0.01},
			{Name: "hDOP", Type: U2, Scale: 0.01},
			{Name: "nDOP", Type: U2, Scale: 0.01},
			{Name: "eDOP", Type: U2, Scale: 0.01},
		},
	},
	msgKey(ClassNAV, 0x07): {
		Name: "NAV-PVT",
		Fields: []Field{
			{Name: "iTOW", Type: U4},
			{Name: "year", Type: U2},
			{Name: "month", Type: U1},
			{Name: "day", Type: U1},
			{Name: "hour", Type: U1},
			{Name: "min", Type: U1},
			{Name: "sec", Type: U1},
			{Name: "valid", Type: X1},
			{Name: "tAcc", Type: U4},
			{Name: "nano", Type: I4},
			{Name: "fixType", Type: U1},
			{Name: "flags", Type: X1},
			{Name: "flags2", Type: X1},
			{Name: "numSV", Type: U1},
			{Name: "lon", Type: I4, Scale: 1e-7},
			{Name: "lat", Type: I4, Scale: 1e-7},
			{Name: "height", Type: I4},
			{Name: "hMSL", Type: I4},
			{Name: "hAcc", Type: U4},
			{Name: "vAcc", Type: U4},
			{Name: "velN", Type: I4},
			{Name: "velE", Type: I4},
			{Name: "velD", Type: I4},
			{Name: "gSpeed", Type: I4},
			{Name: "headMot", Type: I4, Scale: 1e-5},
			{Name: "sAcc", Type: U4},
			{Name: "headAcc", Type: U4, Scale: 1e-5},
			{Name: "pDOP", Type: U2, Scale: 0.01},
			{Name: "flags3", Type: X1},
			{Name: "reserved1", Type: CH, Len: 5},
			{Name: "headVeh", Type: I4, Scale: 1e-5},
			{Name: "magDec", Type: I2, Scale: 1e-2},
			{Name: "magAcc", Type: U2, Scale: 1e-2},
		},
	},
	msgKey(ClassNAV, 0x12): {
		Name: "NAV-VELNED",
		Fields: []Field{
			{Name: "iTOW", Type: U4},
			{Name: "velN", Type: I4},
			{Name: "velE", Type: I4},
			{Name: "velD", Type: I4},
			{Name: "speed", Type: U4},
			{Name: "gSpeed", Type: U4},
			{Name: "heading", Type: I4, Scale: 1e-5},
			{Name: "sAcc", Type: U4},
			{Name: "cAcc", Type: U4, Scale: 1e-5},
		},
	},
	msgKey(ClassNAV, 0x30): {
		Name: "NAV-SVINFO",
		Fields: []Field{
			{Name: "iTOW", Type: U4},
			{Name: "numCh", Type: U1},
			{Name: "globalFlags", Type: X1},
			{Name: "reserved2", Type: U2},
		},
		CountField: "numCh",
		Group: []Field{
			{Name: "chn", Type: U1},
			{Name: "svid", Type: U1},
			{Name: "flags", Type: X1},
			{Name: "quality", Type: X1},
			{Name: "cno", Type: U1},
			{Name: "elev", Type: I1},
			{Name: "azim", Type: I2},
			{Name: "prRes", Type: I4},
		},
	},
	msgKey(ClassNAV, 0x35): {
		Name: "NAV-SAT",
		Fields: []Field{
			{Name: "iTOW", Type: U4},
			{Name: "version", Type: U1},
			{Name: "numSvs", Type: U1},
			{Name: "reserved0", Type: U2},
		},
		CountField: "numSvs",
		Group: []Field{
			{Name: "gnssId", Type: U1},
			{Name: "svId", Type: U1},
			{Name: "cno", Type: U1},
			{Name: "elev", Type: I1},
			{Name: "azim", Type: I2},
			{Name: "prRes", Type: I2, Scale: 0.1},
			{Name: "flags", Type: X4},
		},
	},
	msgKey(ClassCFG, 0x00): {
		Name: "CFG-PRT",
		Fields: []Field{
			{Name: "portID", Type: U1},
			{Name: "reserved0", Type: U1},
			{Name: "txReady", Type: X2},
			{Name: "mode", Type: X4},
			{Name: "baudRate", Type: U4},
			{Name: "inProtoMask", Type: X2},
			{Name: "outProtoMask", Type: X2},
			{Name: "flags", Type: X2},
			{Name: "reserved5", Type: U2},
		},
	},
	msgKey(ClassCFG, 0x01): {
		Name: "CFG-MSG",
		Fields: []Field{
			{Name: "msgClass", Type: U1},
			{Name: "msgID", Type: U1},
			{Name: "rateDDC", Type: U1},
			{Name: "rateUART1", Type: U1},
			{Name: "rateUART2", Type: U1},
			{Name: "rateUSB", Type: U1},
			{Name: "rateSPI", Type: U1},
			{Name: "reserved", Type: U1},
		},
	},
	msgKey(ClassCFG, 0x08): {
		Name: "CFG-RATE",
		Fields: []Field{
			{Name: "measRate", Type: U2},
			{Name: "navRate", Type: U2},
			{Name: "timeRef", Type: U2},
		},
	},
	msgKey(ClassCFG, 0x24): {
		Name: "CFG-NAV5",
		Fields: []Field{
			{Name: "mask", Type: X2},
			{Name: "dynModel", Type: U1},
			{Name: "fixMode", Type: U1},
			{Name: "fixedAlt", Type: I4, Scale: 0.01},
			{Name: "fixedAltVar", Type: U4, Scale: 0.0001},
			{Name: "minElev", Type: I1},
			{Name: "drLimit", Type: U1},
			{Name: "pDop", Type: U2, Scale: 0.1},
			{Name: "tDop", Type: U2, Scale: 0.1},
			{Name: "pAcc", Type: U2},
			{Name: "tAcc", Type: U2},
			{Name: "staticHoldThresh", Type: U1},
			{Name: "dgnssTimeout", Type: U1},
			{Name: "cnoThreshNumSVs", Type: U1},
			{Name: "cnoThresh", Type: U1},
			{Name: "reserved0", Type: CH, Len: 2},
			{Name: "staticHoldMaxDist", Type: U2},
			{Name: "utcStandard", Type: U1},
			{Name: "reserved1", Type: CH, Len: 5},
		},
	},
	msgKey(ClassMON, 0x09): {
		Name: "MON-HW",
		Fields: []Field{
			{Name: "pinSel", Type: X4},
			{Name: "pinBank", Type: X4},
			{Name: "pinDir", Type: X4},
			{Name: "pinVal", Type: X4},
			{Name: "noisePerMS", Type: U2},
			{Name: "agcCnt", Type: U2},
			{Name: "aStatus", Type: U1},
			{Name: "aPower", Type: U1},
			{Name: "flags", Type: X1},
			{Name: "reserved1", Type: U1},
			{Name: "usedMask", Type: X4},
			{Name: "VP", Type: CH, Len: 17},
			{Name: "jamInd", Type: U1},
			{Name: "reserved3", Type: U2},
			{Name: "pinIrq", Type: X4},
			{Name: "pullH", Type: X4},
			{Name: "pullL", Type: X4},
		},
	},
}

// LookupLayout returns the registered layout for (class, id).
func LookupLayout(class, id byte) (Layout, bool) {
	l, ok := registry[msgKey(class, id)]
	return l, ok
}

// MessageName returns the registered name for (class, id), or a hex
// placeholder for unregistered messages.
func MessageName(class, id byte) string {
	if l, ok := registry[msgKey(class, id)]; ok {
		return l.Name
	}
	return unknownName(class, id)
}
