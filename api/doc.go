// Package api provides HTTP REST API handlers for the pixel board.
//
// The api package implements:
//   - RESTful endpoints for players, painting and the board
//   - Error mapping from engine errors to HTTP status codes
//   - Request ids and request logging
//   - WebSocket upgrade handling
//   - The OpenAPI document
//
// Endpoints:
//
// Board:
//   - GET /api/board - Board dimensions and every cell
//   - GET /api/board/render - Board as text, one letter per cell
//   - GET /api/info - Board dimensions, cooldown and colors
//
// Players:
//   - POST /api/players - Register a player ({"name": "alice"})
//   - GET /api/players/{id} - Player with its remaining cooldown
//
// Painting:
//   - POST /api/pixels/{index} - Paint by flat index ({"player_id": 1, "color": "red"})
//   - POST /api/pixels - Paint by coordinates ({"player_id": 1, "color": "red", "x": 0, "y": 0})
//
// Other:
//   - GET / - Greeting
//   - GET /health - Health check
//   - GET /api-docs/openapi.json - OpenAPI 3 document
//   - GET /ws - Live updates
//
// The routes of the first release keep their response shapes:
//   - GET /board - Bare array of capitalized color names (["White", "Red", ...])
//   - POST /player - 200 with {"id", "name", "last_played"}
//   - POST /pixel/{index} - 201 with an empty body
//
// Their error bodies use the format below.
//
// Errors:
//
// Error bodies are {"error": message, "code": code}. Unknown players give 404;
// invalid coordinates, colors, names and bodies give 400. A paint during the
// cooldown gives 400 with code cooldown_active plus remaining_seconds
// (rounded up) and remaining_ms. Anything else is a 500.
package api
