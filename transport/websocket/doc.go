// Package websocket provides live board updates over WebSocket.
//
// The package uses a hub-and-spoke model where a central Hub owns every
// connection. Each client has a read goroutine, which only keeps the
// connection alive, and a write goroutine fed by a buffered channel.
//
// Message Protocol:
//
// Every frame is one JSON Message:
//
//	{"event": "pixel_painted", "data": {...}, "timestamp": "..."}
//
// A client first receives a board_snapshot with the whole board, then
// pixel_painted and player_created events as they happen. Clients whose send
// buffer fills up are dropped.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	hub.ServeWS(w, r, &websocket.Message{Event: websocket.EventBoardSnapshot, Data: board})
//	hub.Broadcast(websocket.EventPixelPainted, result)
//
// Registrations and broadcasts go through one queue. A client registered
// while the board is locked (Upgrade, then Register inside the lock) gets
// every change committed after its snapshot and none committed before. The
// Hub satisfies service.EventSink.
//
// Run closes every client and returns when ctx is cancelled; Broadcast never
// blocks after that.
package websocket
