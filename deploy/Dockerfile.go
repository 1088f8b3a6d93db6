FROM golang:1.24-alpine AS builder

# api | worker | codebot
ARG SERVICE=api

WORKDIR /app

COPY go.mod go.sum* ./
RUN go mod download

COPY . .

RUN CGO_ENABLED=0 GOOS=linux go build -trimpath -o /app/service ./cmd/${SERVICE}

FROM alpine:3.19

RUN apk add --no-cache ca-certificates tzdata

WORKDIR /app

COPY --from=builder /app/service .

# Migrations are embedded; mount a directory and set MIGRATIONS_PATH to override.
ENV API_PORT=5000 CODEBOT_PORT=3002

EXPOSE 5000 3002

CMD ["./service"]
