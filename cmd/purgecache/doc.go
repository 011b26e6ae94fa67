// Command purgecache is a maintenance tool for the thumbnail store. It
// can sweep expired records, clear the cache entirely, or report record
// counts, operating directly on the SQLite database while the service is
// stopped.
package main
