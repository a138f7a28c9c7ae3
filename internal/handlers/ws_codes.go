package handlers

// WebSocket close codes sent by the match socket, in the private range.
const (
	BadSubprotocolError   = 3000 // the client did not offer the "uno" subprotocol
	InvalidAuthTokenError = 3001 // missing or invalid session token
	InvalidMatchIDError   = 3003 // no such match, or it has ended
	NotSeatedError        = 3004 // the user holds no seat in the match
	ReplacedError         = 3005 // the user connected again from elsewhere
	MatchClosedError      = 3006 // the match was removed from the server
)
