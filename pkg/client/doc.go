// Package client provides the Data Ada client SDK.
//
// A Client wires the transport, its middleware and an optional backend into
// one explicit object. There is no package-level singleton: construct a Client
// and pass it to the components that need it.
//
// In mock mode chat turns, project calls and uploads are served by a built-in
// simulator, so the whole client can be exercised without a server.
//
// Example usage:
//
//	import "github.com/dataada/go-sdk/pkg/client"
//
//	config := client.DefaultConfig()
//	config.BaseURL = "http://localhost:8080/api"
//
//	c, err := client.New(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	stream := c.StreamChat(ctx, &core.ChatRequest{ProjectID: "p1", Message: "分析成绩"})
//	for event := range stream.Events() {
//		fmt.Println(event.Type())
//	}
package client
