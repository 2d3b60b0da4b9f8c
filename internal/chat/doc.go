// Package chat runs a conversational session against a model gateway.
//
// The Assembler builds the prompt for a turn: the messages of the current
// conversation, preceded by an optional system message that carries over the
// tail of the user's previous conversation.
//
// The Controller drives one turn at a time through the states
//
//	AWAITING_INPUT -> VALIDATING -> PERSISTING_USER_MSG -> STREAMING
//	  -> PERSISTING_ASSISTANT_MSG -> AWAITING_INPUT
//
// persisting the user message before the model is called and the assistant
// message only once the stream has completed.
package chat
