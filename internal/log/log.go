// Package log holds the names of the fields used in structured log entries
package log

const (
	// FldFile is the name of the log field for storing file name information
	FldFile = "file"
	// FldPath is the name of the log field for storing path name information
	FldPath = "path"
	// FldTransport is the name of the log field for storing a transport name
	FldTransport = "transport"
	// FldSession is the name of the log field for storing the session ID
	FldSession = "session"
	// FldUser is the name of the log field for storing the ID of the currently active user
	FldUser = "user"
	// FldRole is the role of the currently active user
	FldRole = "role"
	// FldBootcamp is the name of the log field for storing a bootcamp ID
	FldBootcamp = "bootcamp"
	// FldVersion is the version number of the application
	FldVersion = "ver"
	// FldIP is the IP address used in the log entry
	FldIP = "ip"
	// FldID is the ID of an entity used in the log entry
	FldID = "id"
	// FldPage is the requested page of a list request
	FldPage = "page"
	// FldLimit is the requested result limit in a search
	FldLimit = "limit"
	// FldZipcode is the postal code of a radius search
	FldZipcode = "zipcode"
	// FldDriver is the name of the storage driver in use
	FldDriver = "driver"
	// FldEmail is an e-mail address used in the log entry
	FldEmail = "email"
	// FldAddress is a postal address sent to the geocoder
	FldAddress = "address"
)
