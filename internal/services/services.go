// package services defines the remote collaborators of the task engine.
//
// The export-backup pipeline ships artifacts through an [Uploader]; [FTPDrop] is the FTP implementation.
package services

import "context"

// Uploader ships a local file to a remote drop and returns the public link to it.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}
