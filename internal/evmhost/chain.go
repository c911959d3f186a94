package evmhost

import "encoding/binary"

const maxRevertCopy = 1024

// setImmutable stores an immutable once. A flag slot, the value slot
// with an ascii prefix added into its leading bytes, guards the write.
func (s *State) setImmutable(slot, value Word) error {
	flag := slot
	for i, c := range []byte("setimmutable_") {
		flag[i] += c
	}
	if s.StorageLoad(flag) != (Word{}) {
		return s.Revert([]byte("immutable slot already set"))
	}
	s.StorageStore(slot, value)
	var set Word
	set[31] = 1
	s.StorageStore(flag, set)
	return nil
}

// callOutcome copies return data into the out buffer and returns the
// success flag the call builtin yields. A failed call whose output does
// not fit the buffer reverts the caller with that output.
func (s *State) callOutcome(status int32, outOff int32, outLen uint32, write func(int32, []byte) error) (uint64, error) {
	if status == 2 {
		return 0, s.Revert([]byte("call contract failed"))
	}
	success := uint64(0)
	if status == 0 {
		success = 1
	}
	if outLen == 0 {
		return success, nil
	}
	ret := s.ReturnData
	if uint32(len(ret)) < outLen {
		if status == 0 {
			return 1, write(outOff, ret)
		}
		switch {
		case len(ret) == 0:
			return 0, s.Revert([]byte("call failed with no revert data"))
		case len(ret) <= maxRevertCopy:
			return 0, s.Revert(ret)
		default:
			return 0, s.Revert([]byte("out length is not enough"))
		}
	}
	return success, write(outOff, ret[:outLen])
}

// create splits a packaged blob, be32 length then wasm then constructor
// arguments, and deploys it.
func (s *State) create(value Word, blob []byte, salt *Word) (Address, error) {
	if len(blob) < 4 {
		return Address{}, s.Revert([]byte("create contract failed"))
	}
	n := uint64(binary.BigEndian.Uint32(blob))
	if n > uint64(len(blob)-4) {
		return Address{}, s.Revert([]byte("create contract failed"))
	}
	return s.CreateContract(value, blob[:4+n], blob[4+n:], salt), nil
}
