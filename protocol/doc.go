// Package protocol defines the LCD2USB vendor control-transfer protocol
// shared by the device firmware and the host tools.
//
// Every operation travels as one vendor SETUP packet. The request byte
// carries the command class, a 2-bit target and the payload length; up to
// four payload bytes ride in the wValue and wIndex fields:
//
//	bit   7 6 5   4 3   2   1 0
//	      C C C   T T   R   L L     request (bRequest)
//
//	wValue = payload[0] | payload[1]<<8
//	wIndex = payload[2] | payload[3]<<8
//
// CCC is the [Class], TT the [Target] (a controller bitmap for CMD and DATA,
// a subtarget for SET and GET), R is reserved and LL is the payload length
// minus one. GET and ECHO return [ReplySize] bytes.
//
// [Request.Encode] and [Decode] are inverse for every request built with
// [NewRequest].
package protocol
