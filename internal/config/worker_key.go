package config

// WorkerKeyStruct names the Redis lists background workers consume.
type WorkerKeyStruct struct {
	// PersistAnswersQueue carries autosaved selections to the draft writer.
	PersistAnswersQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue: "alphaexam:autosave_queue",
}
