package usercontext

// LocalsKey holds the request's UserContext.
const LocalsKey = "USER_CONTEXT"
