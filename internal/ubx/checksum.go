package ubx

// Checksum computes the UBX 8-bit Fletcher checksum over data
// (message class, id, length and payload bytes).
func Checksum(data []byte) (ckA, ckB byte) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}
