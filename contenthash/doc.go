// Package contenthash stores 20-byte content hashes and numbers them densely.
//
// The underlying enumerator assigns every hash its byte address in the data
// file. Records are exactly RecordSize bytes, so this package publishes
// address / RecordSize instead: the first hash gets ID 0, the next ID 1, and
// so on. Every ID returned by this package is compacted this way.
//
//	hashes, err := contenthash.Open(filepath.Join(dir, "content.hashes"))
//	if err != nil {
//	    return err
//	}
//	defer hashes.Close()
//
//	id, reused, err := hashes.FindOrCreate(fileBytes)
package contenthash
