package daemon

var NewHTTPRemoteClient = newHTTPRemoteClient
