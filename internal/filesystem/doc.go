/*
Package filesystem manages where clip bytes live on disk.

Storage owns two directories: the uploads directory, which holds every
stored asset and is served read-only under /uploads/, and a temporary work
directory. Work that needs scratch files (a merge job, for example) creates
a Namespace under the work directory named after its own unique ID, so
concurrent jobs never share intermediate paths. Removing the Namespace
removes every intermediate at once.

Open and Stat retry NFS stale file handle errors (ESTALE) with exponential
backoff; every other error fails immediately:

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())

Defaults are 3 retries starting at 50ms and capped at 500ms.
*/
package filesystem
