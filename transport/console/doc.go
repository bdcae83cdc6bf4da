// Package console lets one player paint the board from a terminal.
//
// At start the console registers a player and prints the board, one colored
// ▣ per cell. Each input line is "x y color"; "quit" ends the session.
// Rejected paints are reported with the same messages as the first console
// release: "Player not found", "Invalid coordinates" and
// "Player already played, remaining time: 10s".
package console
