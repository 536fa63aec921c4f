// Package files provides the file system operations behind the company
// workspaces: existence checks, copies of single files and whole trees,
// write-once sample files and directory listings.
//
// All operations take paths relative to the manager's base directory.
// Relative paths that would escape the base are rejected with
// ErrOutsideBase; absolute paths are used as given.
//
// Example usage:
//
//	manager := files.NewManager("/srv/company_data", logger)
//
//	if err := manager.CopyTree("/srv/sources/acme", "acme"); err != nil {
//	    return err
//	}
//	names, err := manager.ListFiles("acme")
package files
