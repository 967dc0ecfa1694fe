// Package files provides the file system side of a resampling run.
//
// This package contains two main components:
//
// Walker: enumerates an input tree top-down with a depth limit. A directory's
// files are visited before its subdirectories; symlinked directories are not
// followed and excluded directories (such as an output tree nested inside the
// input) are skipped.
//
// Manager: derives flattened output paths, checks for existing artifacts and
// writes files atomically through a temporary file and a rename.
//
// Example usage:
//
//	walker := files.NewWalker("/data/recordings", 1)
//	manager := files.NewManager("/data/resampled")
//
//	err := walker.Walk(func(info files.FileInfo) error {
//	    if info.IsDir {
//	        return nil
//	    }
//	    out := manager.OutputPath(info.RelPath, ".csv")
//	    if manager.FileExists(out) {
//	        return nil
//	    }
//	    return manager.WriteAtomic(out, encode)
//	})
package files
