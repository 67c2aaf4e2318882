package jobd

// Version is the current version of the jobd manager core.
const Version = "1.0.0"
