package web

const msgTitle = `Quiz Master`

const msgSubtitle = `Test your knowledge with our interactive quiz!`

const msgWelcomeHeader = `Welcome to the Quiz!`

const msgWelcomeHint = `Enter your name to start a new quiz session.`

const msgINumberCaption = `Each I-Number can only take the quiz once`

const msgINumberPlaceholder = `e.g., I123456`

const msgGreeting = `Welcome, %s! Your quiz is starting...`

const msgPlayer = `Player: %s`

const msgCorrect = `Correct! %s`

const msgIncorrect = `Incorrect. %s`

const msgCorrectAnswer = `The correct answer was: %s`

const msgQuestionProgress = `Question %d of %d`

const msgAttempts = `Attempts: %d/%d`

const msgNoQuestion = `The next question could not be loaded.`

const msgQuizComplete = `Quiz Complete!`

const msgFinalScore = `Final Score: %.1f%%`

const msgTimeTaken = `%d sec`

const msgThanks = `Thank you for playing!`

const msgNoSession = `no active quiz session`

const msgTooManyRequests = `too many requests`

// Максимум попыток, если бэкенд его не прислал.
const defaultMaxAttempts = 3
