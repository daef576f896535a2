package ai

// CompanionPersona is the system instruction framing every remote reply.
const CompanionPersona = "You are a kind, supportive AI assistant for dementia patients. Respond simply, calmly, and with reassurance."
