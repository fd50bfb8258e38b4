// Package httputil holds the JSON and middleware plumbing of the board API.
//
// Handlers answer with [WriteJSON] or [WriteError]. Request bodies go
// through [DecodeJSON], which caps their size and rejects unknown fields.
// [Logger], [Hooks] and [CORS] wrap the router.
//
// Error responses always look like
//
//	{"error": {"code": "BOARD_NOT_FOUND", "message": "board 42 not found"}}
//
// with the status taken from errors.HTTPStatus. An error without a code is
// sent as INTERNAL_ERROR and its text is only logged.
package httputil
