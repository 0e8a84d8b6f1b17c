// Package codec defines the logical commands and packets exchanged with the PLD
// instrument and the frame codec that maps them to and from bytes on the serial line.
//
// # Frame Layout
//
// Commands and responses share one frame layout:
//
//	[Sync 0xEB][Sync 0x90][ID][Length_Hi][Length_Lo][Payload(0-1024)][CRC_Hi][CRC_Lo]
//
// ID carries the command kind in bits 0-6; bit 7 is set on frames sent by the
// instrument. The CRC is CRC-16/CCITT-FALSE over ID, Length and Payload.
//
// The header is self-describing: a reader fetches [HeaderLength] bytes, asks
// [Codec.FrameLength] for the total size, then fetches the remainder.
//
// # Determinism
//
// Encoding is a pure function of the Command. Time-bearing commands
// ([SetTimeOfTone]) carry their timestamp in the Command itself; the codec never
// reads the wall clock.
package codec
