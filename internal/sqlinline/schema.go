package sqlinline

// QEnsureSchema creates the tables this service reads and writes.
const QEnsureSchema = `--sql 3f6c2b1e-8d4a-4e7f-9a21-5b0c7d9e4f13
create table if not exists style_batches (
    batch_id   text        not null,
    catalogue  text        not null,
    position   int         not null,
    title      text        not null,
    source     jsonb       not null default '[]'::jsonb,
    prompt     text        not null default '',
    created_at timestamptz not null default now(),
    primary key (batch_id, position)
);
create index if not exists style_batches_catalogue_created_idx
    on style_batches (catalogue, created_at desc, batch_id desc);
create table if not exists integration_tokens (
    id         uuid        primary key default gen_random_uuid(),
    provider   text        not null unique,
    token      text        not null,
    properties jsonb       not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`
