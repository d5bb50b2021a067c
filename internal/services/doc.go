// Package services holds clients for systems outside the task engine.
//
// [FTPDrop] uploads export archives to the FTP server configured in the [ftp] section of the config file,
// using github.com/jlaffaye/ftp. Pipelines only see the [Uploader] interface.
package services
