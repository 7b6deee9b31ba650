package model

// All lists every table the service owns, in migration order.
func All() []any {
	return []any{
		&User{},
		&Document{},
		&DocumentPage{},
		&DocumentAnalysis{},
		&DocumentChunk{},
		&ChatMessage{},
		&Team{},
		&TeamMember{},
		&TeamInvitation{},
		&DocumentShare{},
		&Comment{},
		&Notification{},
	}
}
