package uos

import "errors"

// Decoder errors. Messages are shown to the end user verbatim.
var (
	ErrMalformedFrame       = errors.New("malformed QR frame")
	ErrTooManyFrames        = errors.New("too many frames in QR code")
	ErrUnrecognizedProtocol = errors.New("Payload is not formatted correctly")
	ErrUnknownSignAlgorithm = errors.New("unknown signing algorithm")
	ErrUnknownCommand       = errors.New("Could not determine action type.")
	ErrTruncatedPayload     = errors.New("payload is too short")
	ErrMalformedTransaction = errors.New("transaction payload could not be decoded")
	ErrNoMatchingNetwork    = errors.New("no network found for this genesis hash")
	ErrNoMatchingAccount    = errors.New("no sender account found on this device")
	ErrAssemblerRejected    = errors.New("frame assembler rejected a previous frame; reset to continue")
	ErrAssemblerComplete    = errors.New("request already assembled; reset to scan another")
)
