package mpcnet

import "errors"

var (
	ErrInvalidCfg = errors.New("mpcnet: invalid options")

	ErrDirectoryRead = errors.New("directory: could not read peer list")
	ErrBadAddress    = errors.New("directory: invalid peer address")
	ErrOwnID         = errors.New("directory: own id is not a valid peer index")

	ErrAlreadyConnected = errors.New("mesh: already established")
	ErrNotConnected     = errors.New("mesh: not established")
	ErrConnectTimeout   = errors.New("mesh: gave up dialing peer")
	ErrMeshSetup        = errors.New("mesh: establishment failed")
	ErrMeshIncomplete   = errors.New("mesh: peer connection missing after establishment")

	ErrPeerIO       = errors.New("exchange: peer i/o failure")
	ErrPrecondition = errors.New("exchange: king payload contract violated")
)
