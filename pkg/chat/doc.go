// Package chat implements the chat session state machine.
//
// A Session owns one conversation. It is either idle or streaming exactly one
// turn: SendMessage appends the user message and a loading assistant
// placeholder, opens a stream through its ChatStreamer and folds the stream's
// events into the placeholder until the stream ends.
//
//	Idle --SendMessage--> Streaming --(completed | errored | cancelled)--> Idle
//
// Each turn ends exactly once. Late events from a cancelled or cleared turn
// are discarded: the reducer only touches the assistant message of the turn
// that is still active, and only while that message exists.
//
// Example usage:
//
//	session, err := chat.NewSession(chat.Config{Streamer: c, ProjectID: "p1"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	turn, err := session.SendMessage(ctx, "分析成绩")
//	if err != nil {
//		log.Fatal(err)
//	}
//	outcome, _ := turn.Wait(ctx)
//	fmt.Println(outcome, session.ExportChat())
package chat
