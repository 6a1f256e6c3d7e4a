// Package server provides a development server for the Data Ada chat
// protocol.
//
// The server answers POST {base}/chat/stream with "data: {json}" lines and
// GET {base}/chat/ws with the same events as WebSocket text frames. Turns are
// produced by a ChatStreamer, usually the client's mock simulator, and can be
// routed per task mode. Every turn ends with a done event, or an error event
// when the streamer fails.
//
// When a project store is configured the server also serves the /projects
// routes the client calls.
//
// Example usage:
//
//	import "github.com/dataada/go-sdk/pkg/server"
//
//	s, err := server.New(server.Config{
//		Address:  ":8080",
//		Streamer: client.NewMockStreamer(client.DefaultMockConfig()),
//		Projects: db,
//		Sessions: db,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := s.ListenAndServe(); err != nil {
//		log.Fatal(err)
//	}
package server
