package session

// InstructionsText returns the server instructions shown to MCP clients on
// initialize.
func InstructionsText() string {
	return `Loomwork tracks a human+AI collaboration session: workflow phase, task
board, design document, and delegated work. State survives server restarts.

Start each turn with session_status to see where the session stands. Move
through phases with set_phase (idle, design, planning, executing, reviewing,
integrating); the order is advisory, not enforced. Plan with add_task, track
progress with update_task_status, and hand work across the pair with
reassign_task. Record the agreed design with set_design before executing.

When work is handed to an automated worker, record it with record_delegation
so the session remembers what is in flight. Checkpoints (create_checkpoint)
are full snapshots; recover_session merges one back without losing work done
since it was taken. Use log_note for durable free-form notes and
archive_document for writeups you may want to search later.`
}
